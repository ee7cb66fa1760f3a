package auth

const (
	// ContextUserID is the gin context key holding the caller's uuid.UUID.
	ContextUserID = "user_id"
	// ContextUserEmail is the gin context key holding the caller's email.
	ContextUserEmail = "user_email"
)
