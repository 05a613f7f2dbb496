// Package anki defines the note payload sent to the flashcard application
// and the markup used to reference stored media from field content.
package anki
