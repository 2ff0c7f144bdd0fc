package constants

const (
	NotFound         = "{\"message\":\"We couldn't find this resource anywhere! Maybe it expired?\"}"
	NotFoundPage     = "{\"message\":\"You got the path wrong or something, this endpoint doesn't exist!\"}"
	BadRequest       = "{\"message\":\"The request was malformed and we didn't even try to process it!\"}"
	Unauthorized     = "{\"message\":\"You're not authorized to do this. Did you forget an API token somewhere?\"}"
	Forbidden        = "{\"message\":\"You're not allowed to touch this resource!\"}"
	InternalError    = "{\"message\":\"Something went wrong on our end!\"}"
	MethodNotAllowed = "{\"message\":\"That method is not allowed for this endpoint!\"}"
	TooManyRequests  = "{\"message\":\"Slow down a little! You're submitting generations too fast.\"}"
	Success          = "{\"message\":\"Success!\"}"
)
