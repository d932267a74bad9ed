package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"telechat/internal/utils"
)

func TestCreateGroupRequestValidation(t *testing.T) {
	req := CreateGroupRequest{
		Name:         "team",
		Participants: []string{"507f191e810c19729de860ea", "507f191e810c19729de860eb"},
	}
	assert.Empty(t, utils.ValidateStruct(req))

	req.Participants = []string{"507f191e810c19729de860ea"}
	assert.NotEmpty(t, utils.ValidateStruct(req), "groups need at least 2 participants besides the creator")

	req.Participants = nil
	assert.NotEmpty(t, utils.ValidateStruct(req))

	req.Participants = []string{"507f191e810c19729de860ea", "507f191e810c19729de860eb"}
	req.Name = ""
	assert.NotEmpty(t, utils.ValidateStruct(req))
}
