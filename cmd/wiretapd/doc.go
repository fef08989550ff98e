// Package main hosts the wiretapd gateway entrypoint.
package main
