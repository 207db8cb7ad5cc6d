// Package backend is the HTTP client for the walletlink authentication
// endpoints.
//
// The client issues challenges, redeems signed challenges for a bearer
// token and logs out. Once a token is available every request carries
// "Authorization: Bearer <token>". Authenticated calls report their outcome
// through the OnUnauthorized and OnAuthorized hooks so a restored session
// can be confirmed or reverted.
package backend
