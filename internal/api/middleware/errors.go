package middleware

import "github.com/varhold/varhold/internal/apperr"

var (
	errUnknownCredential = apperr.New(apperr.KindAuthentication, "unknown api key")
	errRevokedCredential = apperr.New(apperr.KindAuthentication, "api key revoked or expired")
	errInactiveAccount   = apperr.New(apperr.KindAuthentication, "account is deactivated")
)
