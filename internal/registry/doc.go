// Package registry talks to an npm-protocol package registry and resolves
// version constraints against the versions it publishes. The Client fetches
// package documents (GET <registry>/<name>); the Resolver picks the highest
// version that is compatible with a caret range, or the highest overall for
// "latest".
package registry
