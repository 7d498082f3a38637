package constants

import (
	"strconv"
	"time"
)

// Redis Cache Configuration
// Pattern: courtly:{module}:{entity}:{identifier}

// ================== CACHE TTL DURATIONS ==================

// Reference data (rarely changes)
const (
	TTL_STATIC_LONG   = 24 * time.Hour
	TTL_STATIC_MEDIUM = 12 * time.Hour
	TTL_STATIC_SHORT  = 6 * time.Hour
)

// Semi-static data
const (
	TTL_SEMI_STATIC_SHORT = 1 * time.Hour
	TTL_SEMI_STATIC_QUICK = 15 * time.Minute
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "courtly"
)

// ================== CATALOG MODULE ==================

// Catalog Cache Keys
const (
	CACHE_KEY_COURT          = CACHE_PREFIX + ":catalog:court:id:"          // + court-id
	CACHE_KEY_SERVICE        = CACHE_PREFIX + ":catalog:service:id:"        // + service-id
	CACHE_KEY_BRANCH_SERVICE = CACHE_PREFIX + ":catalog:branch_service:id:" // + branch-service-id
)

// Catalog Cache TTLs
const (
	TTL_COURT          = TTL_STATIC_SHORT      // 6 hours
	TTL_SERVICE        = TTL_STATIC_LONG       // 24 hours
	TTL_BRANCH_SERVICE = TTL_SEMI_STATIC_SHORT // 1 hour, unit prices change more often
)

// ================== RATE LIMIT ==================

const (
	CACHE_KEY_RATE_LIMIT = CACHE_PREFIX + ":ratelimit:" // + ip:type
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_CATALOG_ALL = CACHE_PREFIX + ":catalog:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildCourtKey(courtID int64) string {
	return CACHE_KEY_COURT + strconv.FormatInt(courtID, 10)
}

func BuildServiceKey(serviceID int64) string {
	return CACHE_KEY_SERVICE + strconv.FormatInt(serviceID, 10)
}

func BuildBranchServiceKey(branchServiceID int64) string {
	return CACHE_KEY_BRANCH_SERVICE + strconv.FormatInt(branchServiceID, 10)
}

func BuildRateLimitKey(clientIP, limitType string) string {
	return CACHE_KEY_RATE_LIMIT + clientIP + ":" + limitType
}
