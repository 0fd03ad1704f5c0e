package widget

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type uuidVersion int

func parseVersion(v string) (uuidVersion, error) {
	switch strings.TrimPrefix(strings.ToLower(v), "v") {
	case "", "4":
		return 4, nil
	case "1":
		return 1, nil
	case "3":
		return 3, nil
	case "5":
		return 5, nil
	case "7":
		return 7, nil
	}
	return 0, fmt.Errorf("unsupported uuid version %q", v)
}

// Generate returns a new UUID string of the configured version. Versions 3 and 5 are
// name-based and need Namespace (a UUID or one of dns, url, oid, x500) and Name.
func (p UUIDParams) Generate() (string, error) {
	version, err := parseVersion(p.Version)
	if err != nil {
		return "", err
	}
	switch version {
	case 1:
		id, err := uuid.NewUUID()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	case 3, 5:
		ns, err := namespace(p.Namespace)
		if err != nil {
			return "", err
		}
		if p.Name == "" {
			return "", fmt.Errorf("uuid v%d needs a name", version)
		}
		if version == 3 {
			return uuid.NewMD5(ns, []byte(p.Name)).String(), nil
		}
		return uuid.NewSHA1(ns, []byte(p.Name)).String(), nil
	case 7:
		id, err := uuid.NewV7()
		if err != nil {
			return "", err
		}
		return id.String(), nil
	default:
		return uuid.NewString(), nil
	}
}

func namespace(ns string) (uuid.UUID, error) {
	switch strings.ToLower(ns) {
	case "dns":
		return uuid.NameSpaceDNS, nil
	case "url":
		return uuid.NameSpaceURL, nil
	case "oid":
		return uuid.NameSpaceOID, nil
	case "x500":
		return uuid.NameSpaceX500, nil
	}
	id, err := uuid.Parse(ns)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid uuid namespace %q: %w", ns, err)
	}
	return id, nil
}

// DecodeBytes converts a 16-byte UUID buffer to its canonical string.
func DecodeBytes(b []byte) (string, bool) {
	id, err := uuid.FromBytes(b)
	if err != nil {
		return "", false
	}
	return id.String(), true
}

// EncodeBytes parses a canonical UUID string into its 16-byte form.
func EncodeBytes(s string) ([]byte, bool) {
	id, err := uuid.Parse(s)
	if err != nil {
		return nil, false
	}
	b := id[:]
	return b, true
}
