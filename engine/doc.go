/*
Package engine contains the stateful part of sonify: the Model that owns the
current data source and sequence, and the Player that schedules the notes of a
sequence on a transport.

The Model is not safe for concurrent use; all commands (plotting, importing,
playing and changing parameters) are expected to come from one goroutine. The
Player runs its scheduled callbacks on whatever goroutine the transport uses and
reports back to the Model through the Broker. The Model applies those reports
in Update or Wait and forwards them to its Listener.

Parameters are manipulated through small views that clamp their input, e.g.
model.Speed().Float().Set(2) or model.Resolution().Int().Set(5000). Setters
return false when the value did not change.
*/
package engine
