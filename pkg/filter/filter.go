package filter

// Filter is a stage of an event pipeline: FilterFunc decides whether an
// event is included and DoFunc acts on each included event.
type Filter interface {
	FilterFunc(Event) bool
	DoFunc(Event)
}
