// Package registry defines the package registry's data model and the
// enriched records written to the metadata artifact.
//
// A registry file (packages.json) is a JSON array of [Package] entries.
// Each entry lists one or more [Source]s, the upstream locations that are
// probed and resolved on every run. The artifact (packages-meta.json) is a
// JSON array whose first element is a [Header] and whose remaining
// elements are [EnrichedPackage]s in registry order.
//
// Enrichment fields are never omitted. A value that could not be determined
// is the empty string, an empty list, false, or null for [EnrichedSource.Archived].
// [ReleaseNone] is reserved for "checked, no release published".
package registry
