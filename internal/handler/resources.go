package handler

import "net/http"

var (
	pageQuery   = []string{"page", "limit"}
	ordersQuery = []string{"page", "limit", "status", "search"}
)

// Endpoints returns the proxied API surface of the dashboard. Login, logout
// and uploads are served by dedicated handlers.
func Endpoints() []Endpoint {
	return []Endpoint{
		// Profile
		{Resource: "profile", Method: http.MethodGet, Pattern: "/api/auth/me", Upstream: "/auth/me",
			StrictJSON: true, FailMessage: "Failed to fetch profile"},
		{Resource: "profile", Method: http.MethodPut, Pattern: "/api/auth/me", Upstream: "/auth/me",
			StrictJSON: true, FailMessage: "Failed to update profile", OKMessage: "Profile updated successfully"},

		// Admins
		{Resource: "admins", Method: http.MethodGet, Pattern: "/api/admins", Upstream: "/admins",
			Query: pageQuery, FailMessage: "Failed to fetch admins"},
		{Resource: "admins", Method: http.MethodPost, Pattern: "/api/admins", Upstream: "/admins",
			FailMessage: "Failed to create admin", OKMessage: "Admin created successfully"},
		{Resource: "admins", Method: http.MethodGet, Pattern: "/api/admins/{id}", Upstream: "/admins/{id}",
			FailMessage: "Failed to fetch admin"},
		{Resource: "admins", Method: http.MethodPut, Pattern: "/api/admins/{id}", Upstream: "/admins/{id}",
			FailMessage: "Failed to update admin", OKMessage: "Admin updated successfully"},
		{Resource: "admins", Method: http.MethodDelete, Pattern: "/api/admins/{id}", Upstream: "/admins/{id}",
			FailMessage: "Failed to delete admin", OKMessage: "Admin deleted successfully"},

		// Orders
		{Resource: "orders", Method: http.MethodGet, Pattern: "/api/orders", Upstream: "/orders",
			Query: ordersQuery, FailMessage: "Failed to fetch orders"},
		{Resource: "orders", Method: http.MethodGet, Pattern: "/api/orders/latest", Upstream: "/orders/latest",
			Query: []string{"limit"}, FailMessage: "Failed to fetch latest orders", Reshape: reshapeLatestOrders},

		// Services
		{Resource: "services", Method: http.MethodGet, Pattern: "/api/services", Upstream: "/services",
			FailMessage: "Failed to fetch services"},
		{Resource: "services", Method: http.MethodPost, Pattern: "/api/services", Upstream: "/services",
			FailMessage: "Failed to create service", OKMessage: "Service created successfully"},
		{Resource: "services", Method: http.MethodGet, Pattern: "/api/services/{id}", Upstream: "/services/{id}",
			FailMessage: "Failed to fetch service"},
		{Resource: "services", Method: http.MethodPut, Pattern: "/api/services/{id}", Upstream: "/services/{id}",
			FailMessage: "Failed to update service", OKMessage: "Service updated successfully"},
		{Resource: "services", Method: http.MethodDelete, Pattern: "/api/services/{id}", Upstream: "/services/{id}",
			FailMessage: "Failed to delete service", OKMessage: "Service deleted successfully"},

		// Reports
		{Resource: "reports", Method: http.MethodGet, Pattern: "/api/reports", Upstream: "/reports",
			Query: []string{"range", "from", "to"}, FailMessage: "Failed to fetch reports"},

		// Complaints
		{Resource: "complaints", Method: http.MethodGet, Pattern: "/api/complaints", Upstream: "/complaints",
			Query: []string{"page", "limit", "status"}, FailMessage: "Failed to fetch complaints"},
		{Resource: "complaints", Method: http.MethodGet, Pattern: "/api/complaints/{id}", Upstream: "/complaints/{id}",
			FailMessage: "Failed to fetch complaint"},
		{Resource: "complaints", Method: http.MethodPatch, Pattern: "/api/complaints/{id}", Upstream: "/complaints/{id}",
			FailMessage: "Failed to update complaint", OKMessage: "Complaint updated successfully"},

		// Notifications
		{Resource: "notifications", Method: http.MethodGet, Pattern: "/api/notifications/hub", Upstream: "/notifications/hub",
			StrictJSON: true, FailMessage: "Failed to fetch notifications"},
		{Resource: "notifications", Method: http.MethodPatch, Pattern: "/api/notifications/{id}/read", Upstream: "/notifications/{id}/read",
			StrictJSON: true, FailMessage: "Failed to mark notification as read", OKMessage: "Notification marked as read"},

		// Web users
		{Resource: "webusers", Method: http.MethodGet, Pattern: "/api/webusers", Upstream: "/webusers",
			Query: []string{"page", "limit", "search"}, FailMessage: "Failed to fetch users"},
	}
}
