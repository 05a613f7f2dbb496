// Package image finds or generates pictures for the images slot of the
// form. Search results come from Pixabay; generated illustrations come
// from the OpenAI image API. Both end up as media.Attachment values.
package image
