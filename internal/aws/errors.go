package aws

import (
	"errors"
	"strings"

	"github.com/aws/smithy-go"

	"github.com/vietdv277/tierctl/pkg/provider"
)

// EC2 reports failures as error codes rather than typed exceptions
const (
	codeDuplicatePermission   = "InvalidPermission.Duplicate"
	codePermissionNotFound    = "InvalidPermission.NotFound"
	codeDuplicateGroup        = "InvalidGroup.Duplicate"
	codeGroupNotFound         = "InvalidGroup.NotFound"
	codeLaunchTemplateMissing = "InvalidLaunchTemplateName.NotFoundException"
	codeLaunchTemplateExists  = "InvalidLaunchTemplateName.AlreadyExistsException"
	codeLaunchTemplateIDGone  = "InvalidLaunchTemplateId.NotFound"
	codeInstanceNotFound      = "InvalidInstanceID.NotFound"
	codeDependencyViolation   = "DependencyViolation"
	codeInvalidParameterValue = "InvalidParameterValue"
	codeValidationError       = "ValidationError"
)

// errorCode returns the API error code of err, or "" for non-API errors
func errorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// hasCode reports whether err carries one of the given API error codes
func hasCode(err error, codes ...string) bool {
	code := errorCode(err)
	if code == "" {
		return false
	}
	for _, c := range codes {
		if code == c {
			return true
		}
	}
	return false
}

// isA reports whether err wraps an error of type T
func isA[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// messageContains reports whether the API error message mentions s
func messageContains(err error, s string) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return strings.Contains(strings.ToLower(apiErr.ErrorMessage()), strings.ToLower(s))
	}
	return false
}

// isNotFound reports whether a lookup answered "does not exist"
func isNotFound(err error) bool {
	return errors.Is(err, provider.ErrNotFound)
}
