package aoi

// VisibilityCallback is called when e enters (visible=true) or leaves (visible=false) the watched area.
// Returning false stops the running enter sweep; it has no effect on other events.
type VisibilityCallback func(e Entity, visible bool) bool

// AreaWatcher reports entities entering and leaving a moving circle
type AreaWatcher interface {
	// Start subscribes the covered tiles and reports entities already inside
	Start() error
	// UpdateShape moves or resizes the watched circle
	UpdateShape(shape Circle)
	// Shape returns the watched circle
	Shape() Circle
	// IsVisible checks if e was last reported visible
	IsVisible(e Entity) bool
	// VisibleCount returns the number of entities reported visible
	VisibleCount() int
	// Destroy disconnects all subscriptions without reporting anything
	Destroy()
}
