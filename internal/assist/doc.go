// Package assist fills in form sections with generated text. It backs the
// CREATE and SEARCH actions next to the definition, sentence, translation,
// examples and notes inputs. A Generator talks to a Completer, which is an
// OpenAI chat model or a Gemini model, and caches replies per word.
package assist
