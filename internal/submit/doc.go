// Package submit sends a composed note to AnkiConnect. Attachments are
// encoded and stored one after another (sentence audio, word audio, then
// images in selection order), their markers are merged into the fields and
// the note is added last. Any failure ends the submission with a single
// reason.
package submit
