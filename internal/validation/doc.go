// ConcertWatch - Concert Monitoring and Notification Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/concertwatch

// Package validation provides struct validation using go-playground/validator v10.
//
// A thread-safe singleton validator is shared by the configuration loader and the
// admin API. Two domain validators are registered on top of the built-ins:
//
//	country_code   upper-case ISO 3166-1 alpha-2 code ("IT", "US")
//	notblank_name  non-empty after trimming, no control characters
//
// # Quick Start
//
//	type AddArtistRequest struct {
//	    Name string `validate:"required,notblank_name,max=100"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, apiErr.Details)
//	}
package validation
