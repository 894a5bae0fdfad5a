// SPDX-FileCopyrightText: Copyright 2025 Stratocloud, Inc.
// SPDX-License-Identifier: Apache-2.0

package errors

import (
	"regexp"
	"strconv"

	"github.com/tidwall/gjson"
)

// Provider error codes surfaced by the token endpoint. The same codes appear
// both in the error_codes array of the JSON error body and embedded in the
// error_description text (as "STS50076"-style tokens).
var (
	// mfaRequiredCodes signal that the tenant enforces multi-factor
	// authentication for this user and flow.
	mfaRequiredCodes = []string{"50072", "50074", "50076", "50077", "50078", "50079"}

	// userNotInDirectoryCodes signal that the user has no presence in the
	// tenant's directory (typical for disabled external tenants).
	userNotInDirectoryCodes = []string{"50034", "50000"}

	// unsupportedAccountCodes signal consumer accounts that cannot use
	// non-interactive flows.
	unsupportedAccountCodes = []string{"50020"}
)

// stsCodeRe matches provider error codes embedded in error descriptions,
// with or without the "STS"/"AADSTS" prefix.
var stsCodeRe = regexp.MustCompile(`\b(?:AADSTS|STS)?(50[0-9]{3})\b`)

// ExtractCodes pulls provider error codes from a token endpoint error body
// and/or its error description text. Either argument may be empty. The result
// preserves first-seen order and contains no duplicates.
func ExtractCodes(body []byte, description string) []string {
	var codes []string
	seen := make(map[string]bool)

	add := func(code string) {
		if code != "" && !seen[code] {
			seen[code] = true
			codes = append(codes, code)
		}
	}

	if len(body) > 0 {
		for _, v := range gjson.GetBytes(body, "error_codes").Array() {
			add(strconv.FormatInt(v.Int(), 10))
		}
		if description == "" {
			description = gjson.GetBytes(body, "error_description").String()
		}
	}

	for _, m := range stsCodeRe.FindAllStringSubmatch(description, -1) {
		add(m[1])
	}

	return codes
}
