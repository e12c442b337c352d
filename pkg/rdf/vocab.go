package rdf

// Namespace URIs of the built-in vocabularies.
const (
	XMLNamespace  = "http://www.w3.org/XML/1998/namespace"
	RDFNamespace  = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	RDFSNamespace = "http://www.w3.org/2000/01/rdf-schema#"
	XSDNamespace  = "http://www.w3.org/2001/XMLSchema#"
	OWLNamespace  = "http://www.w3.org/2002/07/owl#"
)

// Helper terms for common XSD datatypes
var (
	XSDString   = NewURIRef(XSDNamespace + "string")
	XSDInteger  = NewURIRef(XSDNamespace + "integer")
	XSDDecimal  = NewURIRef(XSDNamespace + "decimal")
	XSDDouble   = NewURIRef(XSDNamespace + "double")
	XSDBoolean  = NewURIRef(XSDNamespace + "boolean")
	XSDDateTime = NewURIRef(XSDNamespace + "dateTime")
	XSDDate     = NewURIRef(XSDNamespace + "date")

	RDFType     = NewURIRef(RDFNamespace + "type")
	RDFLangStr  = NewURIRef(RDFNamespace + "langString")
	RDFSLabel   = NewURIRef(RDFSNamespace + "label")
	RDFSComment = NewURIRef(RDFSNamespace + "comment")
)
