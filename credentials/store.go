package credentials

// Fixed keys used by the session layer. No other keys are written.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserData     = "user_data"
)

// Store is durable, opaque key-value storage for session credentials.
// Implementations perform no validation of the stored values.
//
// Get reports absence through ok=false, never through an error; err is
// reserved for storage failures (I/O, decryption). Clear and ClearAll are
// idempotent: removing an absent key is not an error.
type Store interface {
	Get(key string) (value string, ok bool, err error)
	Set(key, value string) error
	Clear(key string) error
	ClearAll() error
}
