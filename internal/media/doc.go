// Package media reads user attachments (audio clips and images) and encodes
// them for the storeMediaFile call.
package media
