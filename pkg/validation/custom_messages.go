package validation

func CustomMessage(field string) map[string]string {
	var customValidationMessages = map[string]map[string]string{
		"Email": {
			"required": "email must not be empty",
			"email":    "email is not a valid address",
		},
		"Phone": {
			"required": "phone number must not be empty",
			"numeric":  "phone number must be numeric",
		},
		"Password": {
			"required": "password must not be empty",
			"min":      "password must be at least 8 characters",
			"max":      "password must be at most 72 characters",
		},
		"NewPassword": {
			"required": "new password must not be empty",
			"min":      "new password must be at least 8 characters",
			"max":      "new password must be at most 72 characters",
		},
		"ConfirmPassword": {
			"required": "password confirmation must not be empty",
			"eqfield":  "password confirmation does not match",
		},
		"FirstName": {
			"required": "first name must not be empty",
		},
		"LastName": {
			"required": "last name must not be empty",
		},
		"Token": {
			"required": "token must not be empty",
		},
		"RefreshToken": {
			"required": "refresh token must not be empty",
		},
	}
	return customValidationMessages[field]
}
