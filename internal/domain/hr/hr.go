// Package hr adds the computed department and employee values the gateway
// exposes on top of hr.department and hr.employee.
package hr

import (
	"strings"
	"time"
)

// DepartmentDisplayName renders "[code] name", or just the name without a code
func DepartmentDisplayName(code, name string) string {
	code = strings.TrimSpace(code)
	if code == "" {
		return name
	}
	return "[" + code + "] " + name
}

// EmployeeAge returns the age in full years at today. A zero birthday gives 0.
func EmployeeAge(birthday, today time.Time) int {
	if birthday.IsZero() || today.Before(birthday) {
		return 0
	}
	age := today.Year() - birthday.Year()
	if today.Month() < birthday.Month() ||
		(today.Month() == birthday.Month() && today.Day() < birthday.Day()) {
		age--
	}
	return age
}
