package models

import (
	_ "github.com/ollama/vit/model/models/vit"
)
