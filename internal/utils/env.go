package utils

import "github.com/joho/godotenv"

// ReadEnv parses an env style file into a map.
func ReadEnv(file string) (map[string]string, error) {
	return godotenv.Read(file)
}
