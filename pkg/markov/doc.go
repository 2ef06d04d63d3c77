/*
Package markov implements the Markov chain engine behind titlegen: building
a weighted token transition table from a title corpus, persisting it as a
SQLite snapshot, restoring it on later runs, and sampling new titles from it.

A Chain is built once from a corpus and is immutable afterwards apart from
Prune. Persistence is crash-safe: snapshots are written to a temporary path
and renamed into place, so an interrupted run never leaves a partial
snapshot where the next run would find it.
*/
package markov
