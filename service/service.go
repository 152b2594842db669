// Package service 食谱、收藏、购物车、关注与购物清单的业务逻辑。
//
// 每个操作都显式接收调用者身份 auth.Identity（匿名时为零值），
// 不依赖请求级全局状态。
package service

import (
	"github.com/studieren/foodgram/gormtool"
	"github.com/studieren/foodgram/imagestore"
)

type Service struct {
	crud   *gormtool.CRUDTool
	images imagestore.Store
}

func New(crud *gormtool.CRUDTool, images imagestore.Store) *Service {
	return &Service{crud: crud, images: images}
}

// ImageURL 存储 key 转为可访问地址
func (s *Service) ImageURL(key string) string {
	if key == "" {
		return ""
	}
	return s.images.URL(key)
}
