// Package filter decodes, validates and compiles client filter queries.
//
// A Query holds ordered groups of filter variants. Each variant names a
// record field, carries a comparer and a kind-specific payload, and is one
// of a closed set of kinds:
//
//   - StringContains: substring match over the field's text rendering
//   - Equals, NotEquals: text equality over the field's rendering
//   - Range: ordered comparison against a value parsed to the field type
//   - WithinBounds: point fields inside a bounding box
//
// # Wire format
//
// Queries arrive as JSON (or MessagePack with the same shape):
//
//	{
//	  "filterCollections": [
//	    {
//	      "filters": [
//	        {"filterType": "StringContains", "propertyName": "name",
//	         "comparer": {"identifier": 3}, "value": "cat"}
//	      ],
//	      "filterMode": 1
//	    }
//	  ],
//	  "sortFilter": {"propertyName": "name", "direction": 0},
//	  "skip": 0,
//	  "take": 10,
//	  "filterMode": 0
//	}
//
// Property names match case-insensitively and the filterType discriminator
// may appear anywhere in the variant object. Modes and directions accept
// either their numeric value or their name.
//
// # Compilation
//
//	q, err := filter.DecodeJSON(body)
//	if err != nil {
//	    return err // *DecodeError
//	}
//	expr, err := filter.Compile(ctx, sch, q)
//	if err != nil {
//	    return err // *Error listing every issue, or ErrCancelled
//	}
//
// Variants referring to unknown fields are skipped. A kind applied to a
// field type or comparer it does not accept is reported; all issues are
// collected before the *Error is returned.
package filter
