package http

import "net/http"

// allowedHeaders is the explicit allow-list for preflight requests. The
// gateway's auth header must be listed or its deliveries fail preflight.
const allowedHeaders = "authorization, x-client-info, apikey, content-type, asaas-access-token"

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", allowedHeaders)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
