package common

// AuthorizationHeaderName is the HTTP header that carries the bearer token.
const AuthorizationHeaderName = "Authorization"

// BearerScheme is the authorization scheme accepted by the token guard.
const BearerScheme = "Bearer"

// UnknownEmail is recorded in the audit log when a request carries no email.
const UnknownEmail = "unknown"
