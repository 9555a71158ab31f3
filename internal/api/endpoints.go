package api

const (
	// PathAuthLogin is the email/password login endpoint.
	PathAuthLogin = "/auth/login"

	// PathAuthRefresh is the token refresh endpoint. A 401 from this path is
	// always terminal for the session.
	PathAuthRefresh = "/auth/refresh"

	// PathAuthLogout is the server-side refresh-token revocation endpoint.
	PathAuthLogout = "/auth/logout"

	// PathAuthMe is the current-user profile endpoint.
	PathAuthMe = "/auth/me"

	// PathSummaries is the base path for image summary operations.
	PathSummaries = "/summaries"
)
