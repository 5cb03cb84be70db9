// Package pmdatest provides an in-memory data aggregator for tests.
//
// The server speaks the XML wire under /rest: list with start/size paging,
// get, FilterSelect queries evaluated locally, create with generated IDs,
// merging update and delete. Requests are recorded, and failures or a
// wrong content type can be injected.
package pmdatest
