// Package jwt mints and verifies the signed access and refresh tokens used by
// tokenauth. Both categories share one claim layout and are told apart by the
// "category" claim, which callers must check before trusting anything else.
package jwt
