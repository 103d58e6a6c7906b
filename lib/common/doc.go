// Package common contains the logger factory and the configuration types
// shared by the gStore command line tools.
package common
