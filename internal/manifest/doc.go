// Package manifest reads the package.json of a cached command package and
// locates its entry point. It also validates manifests against an embedded
// JSON schema for the doctor command.
package manifest
