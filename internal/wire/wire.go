//go:build wireinject
// +build wireinject

package wire

import (
	"github.com/google/wire"

	"contentflow/internal/common"
	"contentflow/internal/dbmongo"
)

func InitializeApplication() (*Application, func(), error) {
	wire.Build(
		ProvideConfig,
		storeSet,
		serviceSet,
		wire.Struct(new(Application), "*"),
	)
	return nil, nil, nil
}

func InitializeMediaServer() (*MediaApplication, func(), error) {
	wire.Build(
		ProvideConfig,
		ProvideMongo,
		dbmongo.NewMediaStorage,
		wire.Bind(new(common.MediaStore), new(*dbmongo.MediaStorage)),
		ProvideMediaServer,
		wire.Struct(new(MediaApplication), "*"),
	)
	return nil, nil, nil
}
