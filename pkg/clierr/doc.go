// Package clierr classifies dispatch failures into the five kinds the CLI
// reports: configuration, resolution, cache, execution and lifecycle.
// Components wrap their own errors with fmt.Errorf and classify once, at
// their public boundary, so callers can branch with errors.Is.
package clierr
