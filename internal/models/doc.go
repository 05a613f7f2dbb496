// Package models lists the OpenAI models usable for speech, images and
// the assistant, so the configured model names can be checked against
// what the API key actually offers.
package models
