// Package settings owns the note layout configuration: the fixed set of
// form sections, their order, the section to field mapping and the
// placement policies for audio and image attachments. Any stored value is
// normalized against the canonical schema before it is used.
package settings
