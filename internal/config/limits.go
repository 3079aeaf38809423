package config

const (
	// MaxNodeNameLength is the maximum length for a single path segment.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxNodeNameLength = 255

	// MaxNodePathLength is the maximum length for full node paths.
	// Set to 500 to allow paths like "a/b/c/d/e/file.md" where each
	// segment can be up to 100 characters. Longer paths indicate
	// overly deep hierarchies (anti-pattern).
	MaxNodePathLength = 500

	// MinPathDepth is the segment count below which a path has no required
	// parent node. Single-segment paths sit at the project root and are
	// exempt from ancestor materialization.
	MinPathDepth = 1

	// MaxListingLimit caps non-recursive listings. Non-recursive queries are
	// always returned in full because they back the cacheable listing path,
	// so the cap only guards against a pathological directory.
	MaxListingLimit = 10000

	// DefaultRecursiveLimit is the page size applied to recursive listings
	// when the caller does not pass an explicit limit.
	DefaultRecursiveLimit = 100
)
