// Package profile stores the device identity (sender-capable under the
// policy name, or receiver-only under a free display name) and the
// silent-mode flag in the device settings file.
package profile
