// Package auth resolves player identities for the broker.
//
// Players are identified by the subject of an HS256 JWT presented either as
// "Authorization: Bearer <token>" or in the access_token cookie. Anonymous
// players obtain a guest token from IssueGuest and keep the same identity
// for the token's lifetime, which is what makes reconnection possible.
package auth
