package protocol

import (
	"fmt"
	"regexp"

	"github.com/holla2040/steamboiler/internal/classify"
)

// Compiled regex patterns matching the JSON schema definitions.
var (
	uuidV4Pattern   = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-4[0-9a-f]{3}-[89ab][0-9a-f]{3}-[0-9a-f]{12}$`)
	servicePattern  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	instancePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]*$`)
	versionPattern  = regexp.MustCompile(`^[0-9]+\.[0-9]+\.[0-9]+$`)
	replyToPattern  = regexp.MustCompile(`^[a-z0-9][a-z0-9_:/-]*$`)
)

// validKinds is a set for fast Type lookup, built from every kind the
// controller consumes or produces.
var validKinds = func() map[string]bool {
	m := make(map[string]bool, len(classify.AllKinds))
	for _, k := range classify.AllKinds {
		m[string(k)] = true
	}
	return m
}()

// Validate checks a Message's envelope against protocol rules. It does
// not inspect Payload — that is the classifier's job once the message
// reaches the controller.
func Validate(msg Message) error {
	env := msg.Envelope

	if !uuidV4Pattern.MatchString(env.ID) {
		return fmt.Errorf("protocol: invalid id: must be UUIDv4, got %q", env.ID)
	}
	if env.Timestamp < 0 {
		return fmt.Errorf("protocol: invalid timestamp: must be >= 0, got %d", env.Timestamp)
	}
	if err := validateSource(env.Source); err != nil {
		return err
	}
	if env.SchemaVersion != SchemaVersion {
		return fmt.Errorf("protocol: invalid schema_version: must be %q, got %q", SchemaVersion, env.SchemaVersion)
	}
	if !validKinds[env.Type] {
		return fmt.Errorf("protocol: invalid type: %q is not a known message kind", env.Type)
	}
	if env.CorrelationID != "" && !uuidV4Pattern.MatchString(env.CorrelationID) {
		return fmt.Errorf("protocol: invalid correlation_id: must be UUIDv4, got %q", env.CorrelationID)
	}
	if env.ReplyTo != "" && !replyToPattern.MatchString(env.ReplyTo) {
		return fmt.Errorf("protocol: invalid reply_to: must match %q, got %q", replyToPattern.String(), env.ReplyTo)
	}

	return nil
}

func validateSource(src Source) error {
	if src.Service == "" || len(src.Service) > 64 || !servicePattern.MatchString(src.Service) {
		return fmt.Errorf("protocol: invalid source.service: must match %q (1-64 chars), got %q", servicePattern.String(), src.Service)
	}
	if src.Instance == "" || len(src.Instance) > 64 || !instancePattern.MatchString(src.Instance) {
		return fmt.Errorf("protocol: invalid source.instance: must match %q (1-64 chars), got %q", instancePattern.String(), src.Instance)
	}
	if !versionPattern.MatchString(src.Version) {
		return fmt.Errorf("protocol: invalid source.version: must be semver, got %q", src.Version)
	}
	return nil
}
