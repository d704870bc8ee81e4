package naming

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	bucketSuffix       = "-website"
	minDomainChars     = 2
	minBucketNameChars = 3
	maxBucketNameChars = 63
	maxProjectChars    = 100
)

var (
	nonAlnum  = regexp.MustCompile(`[^a-z0-9-]+`)
	multiDash = regexp.MustCompile(`-+`)

	projectName = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9-]*$`)
)

var (
	ErrBucketNameTooShort = errors.New("naming: bucket name too short")
	ErrBucketNameTooLong  = errors.New("naming: bucket name too long")
	ErrInvalidProject     = errors.New("naming: invalid project name")
)

// DeriveBucketName maps a domain to an S3 bucket name:
// lowercase, dots become hyphens, invalid characters dropped, hyphen runs collapsed,
// edges trimmed and "-website" appended.
//
// The result is always 3-63 characters; anything else is an error and no name is returned.
// A sanitized domain shorter than 2 characters is rejected as too short.
func DeriveBucketName(domain string) (string, error) {
	base := strings.ToLower(strings.TrimSpace(domain))
	base = strings.ReplaceAll(base, ".", "-")
	base = nonAlnum.ReplaceAllString(base, "")
	base = multiDash.ReplaceAllString(base, "-")
	base = strings.Trim(base, "-")

	name := base + bucketSuffix
	if len(base) < minDomainChars || len(name) < minBucketNameChars {
		return "", fmt.Errorf("%w: %q derived from %q (minimum %d characters)", ErrBucketNameTooShort, name, domain, minBucketNameChars)
	}
	if len(name) > maxBucketNameChars {
		return "", fmt.Errorf("%w: %q derived from %q (maximum %d characters)", ErrBucketNameTooLong, name, domain, maxBucketNameChars)
	}
	return name, nil
}

// ValidateProject reports whether project can be used verbatim in stack names, CloudFormation
// export names and SSM parameter paths: a letter followed by letters, digits or hyphens.
func ValidateProject(project string) error {
	if project == "" {
		return ErrInvalidProject
	}
	if len(project) > maxProjectChars {
		return fmt.Errorf("%w: %q is longer than %d characters", ErrInvalidProject, project, maxProjectChars)
	}
	if !projectName.MatchString(project) {
		return fmt.Errorf("%w: %q must start with a letter and contain only letters, digits and hyphens", ErrInvalidProject, project)
	}
	return nil
}

// ResourceName returns <project>-<resource> with both parts used as given.
func ResourceName(project, resource string) string {
	return project + "-" + resource
}

// ParameterPath returns the project-scoped SSM parameter path /<project>/<name>.
func ParameterPath(project, name string) string {
	return "/" + project + "/" + name
}
