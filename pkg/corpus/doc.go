/*
Package corpus reads movie titles from an external source and normalizes
them into token sequences for chain training. It understands plain text
files with one title per line as well as IMDb-style list files (optionally
inside a zip archive), from which it extracts the title portion and drops
the year and episode markers.
*/
package corpus
