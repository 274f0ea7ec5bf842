// Package sanitizer normalizes client-supplied text before validation and
// persistence. Sanitization never rejects input; it only canonicalizes it.
// Rejection is the validators' job.
package sanitizer
