// Package compose turns the note form into note fields. Section text is
// trimmed and normalized, wrapped with its label and routed to the front
// field, an explicitly mapped field or the back field. Sanitizing and
// Markdown rendering are opt-in. Attachment
// placement is resolved here as well; encoding and storing happen later.
package compose
