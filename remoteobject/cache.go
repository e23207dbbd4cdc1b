package remoteobject

import (
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/fansqz/js-debugger/debugger"
)

// Cache 远程对象到显示它的所有节点
// 没有远程对象的节点只记录在成员集合中
type Cache struct {
	nodes   map[debugger.RemoteObjectId][]NodeID
	members *hashset.Set
}

func NewCache() *Cache {
	return &Cache{
		nodes:   map[debugger.RemoteObjectId][]NodeID{},
		members: hashset.New(),
	}
}

func (c *Cache) Put(node *Node) {
	if c.members.Contains(node.id) {
		return
	}
	c.members.Add(node.id)
	if objectId := node.ObjectId(); objectId != "" {
		c.nodes[objectId] = append(c.nodes[objectId], node.id)
	}
}

func (c *Cache) Remove(node *Node) {
	if !c.members.Contains(node.id) {
		return
	}
	c.members.Remove(node.id)
	objectId := node.ObjectId()
	ids := c.nodes[objectId]
	for i, id := range ids {
		if id == node.id {
			ids = append(ids[:i:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(c.nodes, objectId)
	} else {
		c.nodes[objectId] = ids
	}
}

// Get 显示objectId的所有节点，按照加入的顺序
func (c *Cache) Get(objectId debugger.RemoteObjectId) []NodeID {
	ids := c.nodes[objectId]
	if len(ids) == 0 {
		return nil
	}
	answer := make([]NodeID, len(ids))
	copy(answer, ids)
	return answer
}

func (c *Cache) Contains(id NodeID) bool {
	return c.members.Contains(id)
}

// Iterate 遍历所有节点，包括没有远程对象的节点
func (c *Cache) Iterate(fn func(id NodeID)) {
	for _, value := range c.members.Values() {
		fn(value.(NodeID))
	}
}

// Size 节点数量
func (c *Cache) Size() int {
	return c.members.Size()
}
