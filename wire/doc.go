// Package wire converts filter expressions and dynamic models to and from
// the documents exchanged with the aggregator.
//
// XML is the native format: resources are documents rooted at their type
// name with a version attribute, and filtered list requests send a
// FilterSelect document. JSON is available for deployments that expose it;
// its type/version envelope is a model.Envelope chosen by the caller.
package wire
