package middleware

import (
	"net/http"
	"regexp"

	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/logger"
)

// InstallationHeader carries the app installation (device) ID that owns a
// cart and wishlist.
const InstallationHeader = "X-User-ID"

var installationIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// Installation requires the installation header and stores its value in the
// request context. A missing header is 401, a malformed one 400.
func Installation(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(InstallationHeader)
		if id == "" {
			httputil.WriteJSON(w, http.StatusUnauthorized, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "UNAUTHORIZED", Message: InstallationHeader + " header is required"},
			})
			return
		}
		if !installationIDPattern.MatchString(id) {
			httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
				Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "malformed " + InstallationHeader + " header"},
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(logger.WithInstallationID(r.Context(), id)))
	})
}
