package v1

import (
	"context"
	"fmt"

	"uamvh.cloud/escolar/escolar/v1/common"
)

type UserEndpoint struct {
	transport *Transport
}

// Login exchanges credentials for a session. The transport keeps using
// the returned token for later calls.
func (this *UserEndpoint) Login(ctx context.Context, email, password string) (*common.LoginResponseDTO, error) {
	res, err := decode[*common.LoginResponseDTO](this.transport.Post(ctx, "/auth/login", &common.LoginDTO{Email: email, Password: password}, nil))
	if err != nil {
		return nil, err
	}
	if res == nil || res.Token == "" {
		return nil, fmt.Errorf("login response carried no token")
	}
	this.transport.SetToken(res.Token)
	return res, nil
}

func (this *UserEndpoint) List(ctx context.Context, limit, offset int) (*common.ListResponse[common.UserDTO], error) {
	return decode[*common.ListResponse[common.UserDTO]](this.transport.Get(ctx, "/users", page(limit, offset)))
}

func (this *UserEndpoint) Get(ctx context.Context, id int64) (*common.UserDTO, error) {
	return decode[*common.UserDTO](this.transport.Get(ctx, fmt.Sprintf("/users/%d", id), nil))
}

func (this *UserEndpoint) Create(ctx context.Context, dto *common.UserDTO) (*common.UserDTO, error) {
	return decode[*common.UserDTO](this.transport.Post(ctx, "/users", dto, nil))
}

func (this *UserEndpoint) Update(ctx context.Context, id int64, patch any) (*common.UserDTO, error) {
	return decode[*common.UserDTO](this.transport.Patch(ctx, fmt.Sprintf("/users/%d", id), patch))
}

func (this *UserEndpoint) Delete(ctx context.Context, id int64) error {
	return this.transport.Delete(ctx, fmt.Sprintf("/users/%d", id))
}
