package pg

////////////////////////////////////////////////////////////////////////////////
// TYPES

// OffsetLimit represents pagination parameters for list requests.
type OffsetLimit struct {
	Offset uint64  `json:"offset,omitempty" name:"offset" help:"Pagination offset"`
	Limit  *uint64 `json:"limit,omitempty" name:"limit" help:"Pagination limit"`
}

////////////////////////////////////////////////////////////////////////////////
// PUBLIC METHODS

// Bind sets the offsetlimit bind var from the pagination parameters,
// applying the default limit when none is set.
func (o OffsetLimit) Bind(bind *Bind, def uint64) {
	limit := def
	if o.Limit != nil && *o.Limit > 0 {
		limit = *o.Limit
	}
	bind.Set("offsetlimit", `LIMIT `+bind.Set("limit", limit)+` OFFSET `+bind.Set("offset", o.Offset))
}
