// Package audio synthesizes sentence and word audio for the form. A
// Speaker returns the audio as a media.Attachment so it can be placed
// into the sentence or word audio slot like a picked file.
package audio
