// Package schema declares stores in CUE.
//
// Stores live under a top-level "store" struct, keyed by identifier, in
// declaration order:
//
//	store: users: {}
//
//	store: posts: {
//		expects: ["user"]
//		defaults: status: "draft"
//		omit: ["internalNotes"]
//		dependencies: {
//			users:    {key: "userId", attach: "user"}
//			comments: {key: "commentIds", attach: "comments"}
//		}
//	}
//
// key is a dotted field path holding an id (single reference) or a list of
// ids (multi reference). An edge without key attaches the whole dependency
// collection. defaults become a pre hook filling absent fields and omit a
// post hook dropping fields from resolved entities.
package schema
