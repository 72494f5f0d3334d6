// Package nodetype is the type registry for workflow nodes.
//
// # Kinds and Data
//
// Every node carries a [Kind] tag. Seven kinds are registered (task,
// condition, notification, calendar, document, database, email); anything
// else, including a missing type, is handled as the generic fallback
// [KindDefault].
//
// Node data is modeled as the closed sum type [Data], one variant per kind:
//
//	switch d := node.Data.(type) {
//	case *nodetype.Task:
//	    fmt.Println(d.Assignee, d.Status)
//	case *nodetype.Email:
//	    fmt.Println(d.To)
//	}
//
// [Fields] is the open form used on the wire. [Decode] picks the variant by
// tag, [Data.Fields] encodes it back, and [Merge] applies a merge patch.
// Keys a variant does not recognize are kept in its Extra map so that
// imported documents round-trip without loss.
//
// # Registry
//
// A [Registry] provides, per kind, a default-data factory and a single
// validation schema expressed as struct tags (go-playground/validator). The
// required-field list used by the coarse submit gate is derived from the
// same schema, so the two cannot drift apart.
//
//	reg := nodetype.NewRegistry()
//	data := reg.Defaults(nodetype.KindTask)
//	if err := reg.Validate(nodetype.KindEmail, nodetype.Fields{"to": "nope"}); err != nil {
//	    var ve *errors.ValidationError
//	    // ve.Fields names every missing or invalid field
//	}
//
// A Registry is read-only after construction and safe for concurrent use.
package nodetype
