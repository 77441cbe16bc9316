package installer

import "github.com/joho/godotenv"

func godotenvRead(path string) (map[string]string, error) {
	return godotenv.Read(path)
}
