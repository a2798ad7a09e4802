package main

import (
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode/utf8"
)

// The form layer mirrors the declarative style of the original app: each
// form is a map from field name to a list of constraint predicates, run in
// order against the posted value. The first failing rule wins.

type rule func(value string) error

type form map[string][]rule

// validate runs every field's rules against the request's form values and
// returns field -> error message for everything that failed. An empty map
// means the form passed.
func (f form) validate(r *http.Request) map[string]string {
	errs := make(map[string]string)
	for field, rules := range f {
		value := strings.TrimSpace(r.FormValue(field))
		for _, rl := range rules {
			if err := rl(value); err != nil {
				errs[field] = err.Error()
				break
			}
		}
	}
	return errs
}

func required(msg string) rule {
	return func(v string) error {
		if v == "" {
			return fmt.Errorf("%s", msg)
		}
		return nil
	}
}

func minLen(n int, msg string) rule {
	return func(v string) error {
		if utf8.RuneCountInString(v) < n {
			return fmt.Errorf("%s", msg)
		}
		return nil
	}
}

func maxLen(n int, msg string) rule {
	return func(v string) error {
		if utf8.RuneCountInString(v) > n {
			return fmt.Errorf("%s", msg)
		}
		return nil
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func email(msg string) rule {
	return func(v string) error {
		if !emailPattern.MatchString(v) {
			return fmt.Errorf("%s", msg)
		}
		return nil
	}
}

// optional skips the wrapped rules when the value is empty.
func optional(rules ...rule) rule {
	return func(v string) error {
		if v == "" {
			return nil
		}
		for _, rl := range rules {
			if err := rl(v); err != nil {
				return err
			}
		}
		return nil
	}
}

func registerForm() form {
	return form{
		"email": {
			required("You have to enter an email address"),
			email("You have to enter a valid email address"),
		},
		"password": {
			required("You have to enter a password"),
			minLen(6, "Password must be at least 6 characters"),
		},
	}
}

func loginForm() form {
	return form{
		"email": {
			required("You have to enter an email address"),
			email("You have to enter a valid email address"),
		},
		"password": {
			required("You have to enter a password"),
		},
	}
}

func tweetForm() form {
	return form{
		"body": {
			required("A tweet cannot be empty"),
			maxLen(280, "A tweet cannot be longer than 280 characters"),
		},
	}
}

func commentForm() form {
	return form{
		"body": {
			required("A comment cannot be empty"),
			maxLen(280, "A comment cannot be longer than 280 characters"),
		},
	}
}

func profileForm() form {
	return form{
		"username": {
			optional(
				minLen(3, "Username must be at least 3 characters"),
				maxLen(30, "Username cannot be longer than 30 characters"),
			),
		},
		"bio": {
			optional(maxLen(280, "Bio cannot be longer than 280 characters")),
		},
	}
}

// allowedAvatarExts is the upload allow-list. Anything else is rejected
// with a 400 before the file is touched.
var allowedAvatarExts = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// avatarExt extracts and checks the extension of an uploaded filename.
func avatarExt(filename string) (string, bool) {
	dot := strings.LastIndex(filename, ".")
	if dot < 0 || dot == len(filename)-1 {
		return "", false
	}
	ext := strings.ToLower(filename[dot+1:])
	return ext, allowedAvatarExts[ext]
}
