// Package filter implements the filter expression model of the PM DA
// data-driven API: attribute comparisons combined with AND, OR and NOT.
//
// Expressions are immutable trees. They are only built through the
// constructors, which reject unknown operators, operand shape mismatches and
// wrong child counts up front, so a malformed filter can never reach the
// wire.
//
// # Usage
//
//	f, err := filter.And(
//	    filter.Must(filter.Compare("ManageableDevice.SystemName", filter.OpEndsWith, "_router")),
//	    filter.Must(filter.Compare("Lifecycle.State", filter.OpEqual, "ACTIVE")),
//	)
//	q := f.Render()
//	// (ManageableDevice.SystemName ENDS_WITH "_router") AND (Lifecycle.State EQUAL "ACTIVE")
//
// Render is the text syntax sent in the filter query parameter; Parse is
// its inverse. The XML FilterSelect document expected by the aggregator's
// filtered endpoints is produced by package wire.
package filter
