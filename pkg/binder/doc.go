// Package binder parses HTTP requests into typed structs.
//
// Each binder processes one source (JSON body, form body, query string,
// path parameters) driven by struct tags, so a single request type can
// mix sources:
//
//	type callbackRequest struct {
//		Provider string `path:"provider"`
//		Code     string `query:"code"`
//		State    string `query:"state"`
//	}
//
// Binders are composable: apply several in order and each touches only
// the fields carrying its tag.
package binder
