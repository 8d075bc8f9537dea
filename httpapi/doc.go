// Package httpapi is the HTTP surface of the token service: login, OAuth
// completion, reissue, the logout boundary filter, and a protected profile
// route.
//
// Transport channels are fixed by tokenauth.CookieConfig. The access token
// travels in a response header (and in a cookie after an OAuth redirect);
// the refresh token only ever travels in an HttpOnly cookie.
//
// Failures are written as {"error": "<reason>"} where reason comes from
// tokenauth.Reason. Token problems are 400, bad credentials 401, throttled
// logins 429 and store outages 503.
package httpapi
