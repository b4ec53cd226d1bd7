package telemetry

// Span attribute keys shared by the registry client and the use cases.
const (
	AttrTaxID      = "visu.tax_id"
	AttrRecordID   = "visu.registry_id"
	AttrArchive    = "visu.archive"
	AttrOffset     = "visu.registry.offset"
	AttrPages      = "visu.registry.pages"
	AttrPagination = "visu.registry.pagination"
	AttrAccepted   = "visu.fields.accepted"
	AttrRejected   = "visu.fields.rejected"
)
