// Package model provides the dynamic model: a typed, versioned, open
// attribute record used to read and write resources whose shape is only
// known to the server.
//
// Values are a closed union (null, bool, number, string, list, nested
// model). A missing attribute and an attribute explicitly set to null are
// different: Get fails with ATTRIBUTE_NOT_FOUND for the first and returns
// Null() for the second.
//
// Set and Delete mutate the model in place; With returns a modified copy.
//
//	m, err := model.Build("ManageableDevice", "1.0.0",
//	    model.Attr("SNMPProfileID", model.Int(4567)),
//	    model.Attr("SNMPProfileVersion", model.String("SNMPV3")),
//	)
//	payload := m.ToPayload() // {"@type": ..., "@version": ..., "SNMPProfileID": 4567, ...}
//
// Where type and version go in a JSON payload is an Envelope policy, picked
// with WithEnvelope by the caller that owns the wire format.
package model
