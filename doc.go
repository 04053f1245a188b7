/*
Tilespace is the area-of-interest engine of a persistent world game server. It answers two questions for every
world instance: which entities are near a point, and which entities entered or left the view of a moving observer.

Grid and tiles

Each map is cut into square tiles on the X-Z plane. The spatial index keeps every tracked entity in the tile of its
position, so a query only looks at the tiles covered by the bounding box of its circle. Positions outside the map
extents are clamped to the border tiles.

Watchers

An area watcher subscribes the tiles covered by its circle. Every tile notifies its subscribers when an entity
enters, leaves or moves inside it, and the watcher reports the entities crossing its circle through a visibility
callback. Moving the watcher only touches the tiles entering and leaving its coverage.

Package tilespace

tilespace package runs the default scheduler built from tilespace.ini. A common program looks like bellow:

	func main() {
		tilespace.SetDelegate(&MyDelegate{})
		for _, mapid := range config.GetMapIDs() {
			tilespace.CreateInstance(mapid)
		}
		tilespace.Run() // runs until SIGINT or SIGTERM
	}

Instances are updated on the scheduler goroutine. Code running elsewhere uses tilespace.Post to touch them.
*/
package tilespace
