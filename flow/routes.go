package flow

// Route is the onboarding screen currently shown.
type Route string

const (
	RouteWelcome             Route = "/"
	RouteLineAuth            Route = "/line-auth"
	RoutePhoneVerification   Route = "/phone-verification"
	RouteVerificationCode    Route = "/verification-code"
	RouteVerificationSuccess Route = "/verification-success"
)

var backRoutes = map[Route]Route{
	RouteLineAuth:          RouteWelcome,
	RoutePhoneVerification: RouteLineAuth,
	RouteVerificationCode:  RoutePhoneVerification,
}

func (r Route) String() string { return string(r) }
